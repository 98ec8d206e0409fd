package main

import (
	"log"

	"foodpay/cmd"
	_ "foodpay/migrations"
)

func main() {
	if err := cmd.Start(); err != nil {
		log.Fatal(err)
	}
}
