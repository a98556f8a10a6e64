package main

// General API documentation for swaggo. Regenerate internal/httpapi/docs with
// `swag init -g cmd/sage/docs.go -o internal/httpapi/docs`.
//
// @title           sage API
// @version         0.1
// @description     HTTP API for chatting with a small on-device language model and asking questions about documents.
//
// @contact.name   sage maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
