// Package portfoliohttp is the JSON API behind the single-page site.
//
// Every page load creates a session (POST /api/sessions) and addresses it
// by id afterwards. Edit mode, section updates, save, undo and image upload
// all act on that session; the published document under /api/content only
// changes after a successful save.
//
// Errors are JSON bodies of the form {"error": "..."}. Prompts that need the
// visitor's confirmation (exit with unsaved changes, undo) are answered by
// repeating the request with ?confirm=true.
package portfoliohttp
