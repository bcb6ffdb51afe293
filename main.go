package main

import "github.com/joshdurbin/strava-dashboard/internal/cmd"

func main() {
	cmd.Execute()
}
