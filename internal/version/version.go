// ABOUTME: Version information for mixfix binaries
// ABOUTME: Product name, manufacturer and release version shared by CLI and server
package version

import "fmt"

const (
	Version      = "0.1.0"
	Product      = "mixfix"
	Manufacturer = "Harper Reed"
)

// String returns the product name with its version
func String() string {
	return fmt.Sprintf("%s %s", Product, Version)
}
