package main

//go:generate swag init -g cmd/scraper/main.go -o docs

// @title           NFT Market API
// @version         0.1.0
// @description     Reconciled marketplace listings and scraper controls.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
