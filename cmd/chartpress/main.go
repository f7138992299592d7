// Command chartpress builds the newsletter's charts: it pulls Census and
// IPUMS data, consolidates wide vintage files into a local warehouse, and
// renders maps and plots to the artifact store.
package main

func main() {
	Execute()
}
