package domain

import "errors"

var (
	ErrAuthentication = errors.New("invalid credentials")
	ErrDuplicateUser  = errors.New("user already online")
	ErrNotFound       = errors.New("not found")
	ErrUserOffline    = errors.New("user not online")
	ErrFileNotFound   = errors.New("file not found")
	ErrSelfCall       = errors.New("cannot call yourself")
	ErrUnknownCommand = errors.New("unknown command")
	ErrUsage          = errors.New("usage")
	ErrTransfer       = errors.New("transfer failed")
	ErrRateLimited    = errors.New("too many requests")
)

// kinds maps sentinel errors to the tag sent in error replies.
var kinds = []struct {
	err  error
	kind string
}{
	{ErrAuthentication, "AuthenticationError"},
	{ErrDuplicateUser, "DuplicateUser"},
	{ErrUserOffline, "UserOffline"},
	{ErrFileNotFound, "FileNotFound"},
	{ErrSelfCall, "SelfCallRejected"},
	{ErrUnknownCommand, "UnknownCommand"},
	{ErrUsage, "Usage"},
	{ErrTransfer, "TransferError"},
	{ErrRateLimited, "RateLimited"},
	{ErrPrivateRoom, "PrivateRoom"},
	{ErrUsernameEmpty, "ProtocolError"},
	{ErrUsernameTooLong, "ProtocolError"},
	{ErrUsernameInvalid, "ProtocolError"},
	{ErrRoomNameInvalid, "ProtocolError"},
}

// Kind returns the reply tag for err, "Error" when it is not a known kind.
// Errors from other packages may implement Kind() string themselves.
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	var kinder interface{ Kind() string }
	if errors.As(err, &kinder) {
		return kinder.Kind()
	}
	return "Error"
}
