package ports

// PlayerOpener shows a deck's player page on the presenter's screen
type PlayerOpener interface {
	// OpenPlayer starts a browser on playerURL, which must be http or https
	OpenPlayer(playerURL string) error
	// Detect names the browser OpenPlayer would start
	Detect() (string, error)
}
