package tui

// UI text
const (
	TextTitle        = "emarknews"
	TextDisconnected = "Not connected to server"
	TextLoading      = "Loading..."
	TextEmpty        = "No articles yet"
	TextFooter       = "←/→ category | ↑/↓ select | f fast/full | r refresh | q quit"
)
