package broadcast

// DisplayKey is the hash holding the achievement currently shown.
func DisplayKey(prefix string) string {
	return prefix + ":display"
}

// DisplayEventsChannel is the pub/sub channel display changes are sent on.
func DisplayEventsChannel(prefix string) string {
	return prefix + ":display_events"
}
