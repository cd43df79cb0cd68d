package common

const (
	ColorReset       = "\033[0m"
	ColorRed         = "\033[31m"
	ColorGreen       = "\033[32m"
	ColorBlue        = "\033[34m"
	ColorYellow      = "\033[33m"
	ColorMagenta     = "\033[35m"
	ColorCyan        = "\033[36m"
	ColorGray        = "\033[90m"
	ColorBrightRed   = "\033[91m"
	ColorBrightGreen = "\033[92m"
	ColorBrightWhite = "\033[97m"
)
