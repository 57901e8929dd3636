package connection

// User-facing status texts
const (
	MsgOffline      = "Your device appears to be offline. Please check your internet connection."
	MsgUnreachable  = "Unable to reach our servers. Your connection appears to be down or very slow."
	MsgSlow         = "Connection to our servers is slow. Some features may be delayed."
	MsgNetwork      = "Network error. Please check your internet connection and try again."
	MsgDegraded     = "Connected to authentication, but the data service is unavailable."
	MsgLimited      = "Limited connection detected. Some features may work."
	MsgCanceled     = "Connection test canceled."
	MsgCycleTimeout = "Connection test timed out. Server may be slow or unreachable."
)
