package domain

// User-facing failure messages. Technical detail stays in the logs.
const (
	MsgDatabase = "Unable to connect to the database. Please try again in a moment."
	MsgServer   = "Server error occurred. Please try again later."
	MsgNetwork  = "Network error. Please check your connection and try again."
	MsgGeneric  = "Something went wrong. Please try again."
)
