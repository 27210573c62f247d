package constants

const (
	ROLE_ADMIN = "admin"
	ROLE_USER  = "user"
)

const (
	ERROR_INTERNAL_ERROR      = "Server error"
	MISSING_TOKEN             = "Not authorized, no token"
	INVALID_TOKEN             = "Not authorized, token failed"
	NOT_ADMIN                 = "Access denied. Admin only."
	INVALID_INPUT             = "Invalid input"
	ALL_FIELDS_REQUIRED       = "All fields are required"
	INVALID_ID                = "Id must be a positive number"
	INVALID_EMAIL_OR_PASSWORD = "Invalid email or password"
	EMAIL_ALREADY_EXISTS      = "Email already registered"
	USER_NOT_FOUND            = "User not found"
	ADMIN_NOT_FOUND           = "Admin not found"
	DATE_RANGE_REQUIRED       = "Start date and end date are required"
	TOO_MANY_REQUESTS         = "Too many requests, try again later"
)
