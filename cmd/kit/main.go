// Command kit formats and evaluates fixed-point decimal numbers.
//
//	kit fixed 1.005 --scale 2 --rounding half_up
//	kit calc 10 / 3 + 1 --scale 4
//
// Scale and rounding can also be set with the KIT_SCALE and KIT_ROUNDING
// environment variables or in a config file passed with --config.
// Values that start with '-' must follow "--", as in "kit calc -- -1 + 2".
package main

import (
	"context"
	"os"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:]))
}
