package main

import (
	"github.com/gin-gonic/gin"

	"giftbox/api"
)

func main() {
	args, err := ParseArgs()
	if err != nil {
		panic(err)
	}
	if !args.Validate() {
		panic("missing arguments")
	}
	server, err := api.NewServer(args.ServerConfig)
	if err != nil {
		panic(err)
	}
	defer server.Close()

	router := gin.Default()
	server.RegisterRoutes(router)
	if err := router.Run(args.ServerURL); err != nil {
		panic(err)
	}
}
