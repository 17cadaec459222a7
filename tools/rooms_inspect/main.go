package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"rent-hub/infrastructure/grpc/client"
	"rent-hub/infrastructure/grpc/server"
	"rent-hub/runtime"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
)

func main() {
	hubURL := flag.String("hub", "http://localhost:8080", "Hub HTTP address")
	healthAddr := flag.String("health", "localhost:8081", "Hub gRPC health address, empty to skip")
	kind := flag.String("kind", "", "Only show rooms of this kind (identity or chat)")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if *healthAddr != "" {
		status, err := client.Probe(ctx, *healthAddr, server.HubServiceName)
		if err != nil {
			fmt.Printf("Health: unreachable (%v)\n", err)
		} else {
			fmt.Printf("Health: %s\n", status)
		}
	}

	rooms, err := fetchRooms(ctx, *hubURL)
	if err != nil {
		log.Fatal("Error while fetching rooms: ", err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Room", "Kind", "Key", "Members", "Connections"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	shown := 0
	for _, room := range rooms {
		if *kind != "" && room.Kind != *kind {
			continue
		}
		table.Append([]string{
			room.Room,
			room.Kind,
			room.Key,
			strconv.Itoa(len(room.Members)),
			shorten(room.Members),
		})
		shown++
	}
	table.Render()
	fmt.Printf("\n%d room(s)\n", shown)
}

func fetchRooms(ctx context.Context, hubURL string) ([]runtime.RoomSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(hubURL, "/")+"/debug/rooms", nil)
	if err != nil {
		return nil, err
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", res.Status)
	}
	var rooms []runtime.RoomSnapshot
	if err := json.NewDecoder(res.Body).Decode(&rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

// shorten keeps the first 8 characters of each connection id.
func shorten(ids []string) string {
	short := make([]string, 0, len(ids))
	for _, id := range ids {
		if len(id) > 8 {
			id = id[:8]
		}
		short = append(short, id)
	}
	return strings.Join(short, " ")
}
