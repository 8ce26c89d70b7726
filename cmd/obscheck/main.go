package main

import (
	"log"

	tool "github.com/sandeepkv93/deepscan-backend/internal/tools/obscheck"
)

func main() {
	if err := tool.NewRootCommand().Execute(); err != nil {
		log.Fatal(err)
	}
}
