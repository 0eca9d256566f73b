// Command matrix-hub runs the catalog/search/install service.
package main

import (
	"os"

	"github.com/agent-matrix/matrix-hub/cmd/matrix-hub/app"
)

func main() {
	os.Exit(app.Run())
}
