// Package browser abstracts the headless browser used to render the news
// site. Launcher, Browser and Page describe the operations the crawler
// needs; RodLauncher implements them with go-rod over the Chrome DevTools
// protocol. The browsertest subpackage provides a scripted fake for tests.
package browser
