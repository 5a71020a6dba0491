// Package all wires every built-in storage backend into the storage factory.
//
// It exists purely for side effects: importing it (even as a blank import)
// runs the init functions of the backends, which register their repository
// factories and logical type mappers under these kinds:
//
//   - "postgres" (ddlsim/internal/storage/postgres)
//   - "sqlite"   (ddlsim/internal/storage/sqlite)
//   - "mysql"    (ddlsim/internal/storage/mysql)
//   - "mssql"    (ddlsim/internal/storage/mssql)
//
// A binary that needs only some backends can import those packages directly
// instead.
package all

import (
	_ "ddlsim/internal/storage/mssql"
	_ "ddlsim/internal/storage/mysql"
	_ "ddlsim/internal/storage/postgres"
	_ "ddlsim/internal/storage/sqlite"
)
