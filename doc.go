// Package sifter provides a schema-driven dynamic search engine for Go.
//
// Entities and their fields are declared in a YAML schema. A search is an
// ordered list of criteria, each naming a field path, an operator and a raw
// value, carried between requests as a compact string:
//
//	status||8||1;2//reporter.name||5||ada
//
// The list is compiled into a predicate and executed by a storage driver
// (in-memory, Badger, SQLite or Neo4j).
//
// # Basic Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//	client, err := sifter.Open(ctx, cfg, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
// # Importing Records
//
//	report, err := client.ImportFile(ctx, "tickets.json")
//
// # Searching
//
// Search applies the mutation carried by request parameters, then filters:
//
//	params := map[string]string{
//		"CRITERIA":        "",
//		"ACT":             "ADD",
//		"searchSelector":  "status",
//		"searchOperator":  "8",
//		"searchValueList": "1;2",
//	}
//	result, err := client.Search(ctx, "ticket", params, types.Page{})
//	for _, d := range result.Descriptions {
//		fmt.Println(d) // Status = "Open" or "Closed"
//	}
//
// The rewritten params["CRITERIA"] is the list to send with the next request.
package sifter
