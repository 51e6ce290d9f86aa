// Package locale holds the edition-specific crawling rules.
//
// Each model.Locale has one Strategy that knows the landing URL, the
// listing page markup, the article markup and the URL date layout of its
// edition. Everything that differs between www.nytimes.com,
// cn.nytimes.com and nytimes.com/es lives here, so the crawler itself
// never branches on the locale.
package locale
