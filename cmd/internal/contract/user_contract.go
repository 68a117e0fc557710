package contract

type CreateUserRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	// bcrypt ignores everything past 72 bytes
	Password string `json:"password" validate:"required,min=4,max=72"`
}

type UserResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}
