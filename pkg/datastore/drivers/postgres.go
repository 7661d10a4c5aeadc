package drivers

import (
	// pgx's database/sql adapter registers itself as "pgx". Pure Go, so no
	// platform constraints are needed here.
	_ "github.com/jackc/pgx/v5/stdlib"
)
