// Drops the scylla messages table. Destructive, for dev resets only.
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
	cluster.Keyspace = "chat"
	cluster.Consistency = gocql.Quorum
	session, err := cluster.CreateSession()
	if err != nil {
		log.Fatal(err)
	}
	defer session.Close()

	if err := session.Query(`DROP TABLE IF EXISTS messages`).Exec(); err != nil {
		log.Fatal(err)
	}

	log.Println("messages table dropped")
}
