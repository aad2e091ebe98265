package sheets

import "fmt"

// RemoteSyncAuthError means no usable spreadsheet credentials could be obtained.
type RemoteSyncAuthError struct {
	Err error
}

func (e *RemoteSyncAuthError) Error() string { return fmt.Sprintf("sheets authorization: %v", e.Err) }
func (e *RemoteSyncAuthError) Unwrap() error { return e.Err }

// RemoteSyncTransportError wraps a failed Sheets API call.
type RemoteSyncTransportError struct {
	Op  string
	Err error
}

func (e *RemoteSyncTransportError) Error() string {
	return fmt.Sprintf("sheets %s: %v", e.Op, e.Err)
}

func (e *RemoteSyncTransportError) Unwrap() error { return e.Err }
