package main

import "github.com/Egor213/JewelCRM/internal/app"

func main() {
	app.Run()
}
