// Socforge composes system-on-chip models from allocation profiles and runs
// them under a discrete-event engine.
package main

func main() {
	Execute()
}
