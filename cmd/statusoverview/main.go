// Package main is the entry point for the Status Overview service.
//
// @title          Status Overview API
// @version        1.0
// @description    Deployment status of every app per environment, build history, CSV export and Jenkins bulk deployments.
// @host           localhost:8080
// @BasePath       /
// @schemes        http
package main

func main() {
	Execute()
}
