package server

//go:generate swag init -g internal/server/server.go -o docs/swagger

// @title Shiro API
// @version 0.1
// @description Interactive documentation for the Shiro disclosure analysis API surface.
// @contact.name Shiro Maintainers
// @contact.url https://github.com/raysh454/shiro
// @BasePath /
