package app

// CreateUserRequest is the input for provisioning a login.
type CreateUserRequest struct {
	CompanyCode string
	Username    string
	Email       string
	Password    string
	Role        string
}
