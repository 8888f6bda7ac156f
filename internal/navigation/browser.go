package navigation

// NopBrowser is a Browser for embedders that drive navigation purely
// programmatically, without an external shell: requests go nowhere and the
// reported state is always empty. A Back or Forward against it is never
// confirmed, so the history falls back to the resync path and adopts the
// empty state after the confirmation timeout.
type NopBrowser struct{}

func (NopBrowser) Back()    {}
func (NopBrowser) Forward() {}

func (NopBrowser) State() (position, length int) { return 0, 0 }
