// Package browser provisions isolated Chrome sessions for the engines.
//
// A Provisioner launches one browser per session with launch arguments chosen
// for the deployment environment (sandboxed container or developer machine)
// and a randomized but plausible client identity. A failed launch is retried
// once with a minimal configuration before ErrBrowserLaunch is returned.
//
// Sessions are driven with github.com/chromedp/chromedp. Each Session method
// bounds its own work with the timeout of its layer (navigation, network
// idle, selector wait) independently of the caller's deadline, and Release
// tears the browser down; it is safe to call more than once.
package browser
