package main

//go:generate swag init -g cmd/skyflip/main.go -o docs

// @title           skyflip API
// @version         0.1.0
// @description     Market snapshot ingestion and flip detection.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
