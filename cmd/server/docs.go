package main

//go:generate swag init -g cmd/server/main.go -o docs

// @title           Polymarket Analytics API
// @version         0.1.0
// @description     Historical capture of Polymarket markets and price history.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
