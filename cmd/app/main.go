// Command app runs the desktop shell against ./frontend on disk, for frontend development.
package main

import (
	"log"

	"doc-translator/internal/bootstrap"
)

func main() {
	app, err := bootstrap.New()
	if err != nil {
		log.Fatalf("bootstrap app: %v", err)
	}

	if err := app.Run(); err != nil {
		log.Fatalf("run app: %v", err)
	}
}
