package browser

import "math/rand/v2"

// Identity is the client identity presented by a session.
type Identity struct {
	UserAgent string
	Width     int
	Height    int
}

// userAgents are current desktop Chromium user agents. They must stay
// Chromium-based so the announced engine matches the real one.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/129.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36 Edg/130.0.0.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/129.0.0.0 Safari/537.36 Edg/129.0.0.0",
}

// viewports are common desktop screen sizes.
var viewports = [][2]int{
	{1920, 1080},
	{1366, 768},
	{1536, 864},
	{1440, 900},
	{1280, 720},
	{1600, 900},
}

// RandomIdentity picks a user agent and a viewport from the pools.
func RandomIdentity(r *rand.Rand) Identity {
	vp := viewports[r.IntN(len(viewports))]
	return Identity{
		UserAgent: userAgents[r.IntN(len(userAgents))],
		Width:     vp[0],
		Height:    vp[1],
	}
}
