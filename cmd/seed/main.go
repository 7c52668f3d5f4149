// Command seed applies the schema and loads the canonical age groups into
// Postgres. It is idempotent: re-running it leaves existing rows untouched.
package main

import (
	"database/sql"
	"flag"
	"log"
	"os"
	"time"

	_ "github.com/lib/pq"

	agegroupmodels "cohort/internal/agegroup/models"
)

func main() {
	schemaPath := flag.String("schema", "migrations/schema.sql", "path to the schema file")
	flag.Parse()

	dsn := os.Getenv("DATABASE_URL")
	if flag.NArg() > 0 {
		dsn = flag.Arg(0)
	}
	if dsn == "" {
		log.Fatal("DATABASE_URL not set and no connection string argument given")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("ping database: %v", err)
	}

	schema, err := os.ReadFile(*schemaPath)
	if err != nil {
		log.Fatalf("read schema: %v", err)
	}
	if _, err := db.Exec(string(schema)); err != nil {
		log.Fatalf("apply schema: %v", err)
	}
	log.Println("schema applied")

	now := time.Now().UTC()
	for _, g := range agegroupmodels.DefaultGroups(now) {
		res, err := db.Exec(`
			INSERT INTO age_groups (name, min_age, max_age, participation_rules, created_at, updated_at)
			SELECT $1, $2, $3, $4, $5, $5
			WHERE NOT EXISTS (SELECT 1 FROM age_groups WHERE name = $1)`,
			g.Name, g.MinAge, g.MaxAge, g.Rules.Encode(), now,
		)
		if err != nil {
			log.Fatalf("seed age group %q: %v", g.Name, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			log.Printf("seeded age group %q (%s)", g.Name, g.AgeRange())
		}
	}
	log.Println("seeding complete")
}
