package repository

import sq "github.com/Masterminds/squirrel"

// psql builds every query in this package with PostgreSQL dollar placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
