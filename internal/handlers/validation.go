package handlers

import (
	"regexp"
	"strings"
)

// User-facing error messages. Kept as constants so handlers and tests
// agree on the exact wording.
const (
	MsgLength3To20        = "must be between 3 and 20 characters."
	MsgNotEmpty           = "must not be empty."
	MsgMailFormat         = "Invalid email format."
	MsgLength6            = "must be 6 characters min."
	MsgEmailAlreadyExists = "Email is already in use."
	MsgPseudoAlreadyTaken = "Pseudo is already taken."
	MsgPasswordsDontMatch = "Passwords do not match."
	MsgSessionNotFound    = "Session not found."
	MsgCharacterNotFound  = "Character not found. Please try again."
	MsgInvalidSession     = "Invalid session or not finished."
	MsgInvalidCredentials = "Invalid email or password."
	MsgUserNotFound       = "User not found."
	MsgUnknownError       = "An unknown error occurred. Please try again later."
	MsgPseudoJavascript   = "Username cannot contain Javascript code."
	MsgPseudoInvalidChars = "Username can only contain alphanumeric characters, dashes and underscores."
)

// FieldError is a single violated validation rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var (
	scriptTagPattern   = regexp.MustCompile(`(?i)<script[^>]*>.*?</script>`)
	pseudoCharsPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	emailPattern       = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// validatePseudo runs every pseudo rule and returns all violations.
func validatePseudo(pseudo string) []FieldError {
	pseudo = strings.TrimSpace(pseudo)

	var violations []FieldError
	if pseudo == "" {
		violations = append(violations, FieldError{Field: "pseudo", Message: "Pseudo " + MsgNotEmpty})
	}
	if len(pseudo) < 3 || len(pseudo) > 20 {
		violations = append(violations, FieldError{Field: "pseudo", Message: "Pseudo " + MsgLength3To20})
	}
	if scriptTagPattern.MatchString(pseudo) {
		violations = append(violations, FieldError{Field: "pseudo", Message: MsgPseudoJavascript})
	} else if pseudo != "" && !pseudoCharsPattern.MatchString(pseudo) {
		violations = append(violations, FieldError{Field: "pseudo", Message: MsgPseudoInvalidChars})
	}
	return violations
}

// validateSignUp checks every signup rule independently and aggregates
// the violations instead of stopping at the first failure.
func validateSignUp(req *SignUpRequest) []FieldError {
	violations := validatePseudo(req.Pseudo)

	email := strings.TrimSpace(req.Email)
	if email == "" {
		violations = append(violations, FieldError{Field: "email", Message: "Email " + MsgNotEmpty})
	} else if !emailPattern.MatchString(email) {
		violations = append(violations, FieldError{Field: "email", Message: MsgMailFormat})
	}

	password := strings.TrimSpace(req.Password)
	if password == "" {
		violations = append(violations, FieldError{Field: "pw", Message: "Password " + MsgNotEmpty})
	}
	if len(password) < 6 {
		violations = append(violations, FieldError{Field: "pw", Message: "Password " + MsgLength6})
	}
	if scriptTagPattern.MatchString(password) {
		violations = append(violations, FieldError{Field: "pw", Message: MsgPseudoJavascript})
	}
	if password != strings.TrimSpace(req.PasswordConfirm) {
		violations = append(violations, FieldError{Field: "confpw", Message: MsgPasswordsDontMatch})
	}

	return violations
}
