// Creates the scylla schema for the scylla message store backend.
package main

import (
	"log"
	"os"

	"github.com/gocql/gocql"
)

func main() {
	host := os.Getenv("SCYLLA_HOST")
	if host == "" {
		host = "localhost"
	}

	cluster := gocql.NewCluster(host)
	cluster.Consistency = gocql.Quorum
	session, err := cluster.CreateSession()
	if err != nil {
		log.Fatal(err)
	}
	defer session.Close()

	err = session.Query(`CREATE KEYSPACE IF NOT EXISTS chat
		WITH replication = {'class': 'SimpleStrategy', 'replication_factor': 1}`).Exec()
	if err != nil {
		log.Fatal(err)
	}

	// Partitioned by conversation pair, clustered by (timestamp, id) so a
	// partition read comes back in history order with id as the tiebreak.
	err = session.Query(`CREATE TABLE IF NOT EXISTS chat.messages (
		pair text,
		id bigint,
		from_id bigint,
		to_id bigint,
		content text,
		timestamp timestamp,
		PRIMARY KEY ((pair), timestamp, id)
	) WITH CLUSTERING ORDER BY (timestamp ASC, id ASC)`).Exec()
	if err != nil {
		log.Fatal(err)
	}

	log.Println("chat.messages table created")
}
