package main

import (
	"github.com/astrokit/starsys/cmd/starsys/internal"
)

func main() {
	internal.Execute()
}
