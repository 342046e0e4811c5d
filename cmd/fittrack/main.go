package main

import (
	"github.com/patric-chuzhbe/fittrack/internal/app"
)

func main() {
	application, err := app.New()
	if err != nil {
		panic(err)
	}
	defer application.Close()

	if err := application.Run(); err != nil {
		panic(err)
	}
}
