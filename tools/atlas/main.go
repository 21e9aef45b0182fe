// Command atlas prints the SQL schema of the gorm models, for use as
// an external schema loader in atlas migration workflows.
package main

import (
	"fmt"
	"io"
	"os"

	"ariga.io/atlas-provider-gorm/gormschema"

	"giftbox/models"
)

func main() {
	stmts, err := gormschema.New("postgres").Load(&models.User{}, &models.Gift{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load gorm schema: %v\n", err)
		os.Exit(1)
	}
	io.WriteString(os.Stdout, stmts)
}
