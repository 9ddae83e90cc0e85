package errors

var (
	ErrInvalidCode = &DomainError{
		Code:    "INVALID_CODE",
		Message: "invalid redemption code",
	}
	ErrUnknownCode = &DomainError{
		Code:    "UNKNOWN_CODE",
		Message: "redemption code not found",
	}
	ErrAlreadyUsed = &DomainError{
		Code:    "ALREADY_USED",
		Message: "already used",
	}
	ErrForeignMerchant = &DomainError{
		Code:    "FOREIGN_MERCHANT",
		Message: "not for your merchant",
	}
	ErrAlreadyFulfilled = &DomainError{
		Code:    "ALREADY_FULFILLED",
		Message: "redemption already fulfilled",
	}
	ErrNotVerifiable = &DomainError{
		Code:    "NOT_VERIFIABLE",
		Message: "redemption is not in a verifiable status",
	}
)
