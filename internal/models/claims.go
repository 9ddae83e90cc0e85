package models

import "github.com/golang-jwt/jwt/v5"

// Application permissions
const (
	PermissionRedemptionVerify  = "redemption:verify"
	PermissionRedemptionApprove = "redemption:approve"
	PermissionChangePassword    = "user:change-password"

	PermissionReadAdmin  = "admin:read"
	PermissionWriteAdmin = "admin:write"
)

type UserClaims struct {
	jwt.RegisteredClaims
	UserID       uint     `json:"user_id"`
	Email        string   `json:"email"`
	Role         string   `json:"role"`
	MerchantID   uint     `json:"merchant_id"`
	Permissions  []string `json:"permissions"`
	TokenVersion int      `json:"token_version"`
}

// HasPermission checks if the claims include a specific permission
func (c *UserClaims) HasPermission(permission string) bool {
	for _, p := range c.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// GetDefaultPermissions returns default permissions based on role
func GetDefaultPermissions(role string) []string {
	switch role {
	case "admin":
		return []string{
			PermissionRedemptionVerify,
			PermissionRedemptionApprove,
			PermissionChangePassword,
			PermissionReadAdmin,
			PermissionWriteAdmin,
		}
	case "operator":
		return []string{
			PermissionRedemptionVerify,
			PermissionRedemptionApprove,
			PermissionChangePassword,
		}
	default:
		return []string{}
	}
}
