package main

import (
	"fmt"
	"os"
)

func exitHelper() {
	os.Exit(1)
}

func main() {
	fmt.Println("starting")
	os.Exit(1) // want "avoid using os.Exit in main.main"
	exitHelper()
}
