package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/eleven-am/live-captions/internal/transport"
	"github.com/gorilla/websocket"
)

const chunkInterval = 250 * time.Millisecond

var (
	wsConn  *websocket.Conn
	writeMu sync.Mutex
)

func main() {
	roomID := os.Getenv("ROOM_ID")
	if roomID == "" {
		log.Fatal("ROOM_ID env required")
	}

	serverURL := os.Getenv("CAPTIONS_URL")
	if serverURL == "" {
		serverURL = "ws://localhost:4000/ws"
	}

	u, err := url.Parse(serverURL)
	if err != nil {
		log.Fatal("parse url:", err)
	}
	header := http.Header{}
	if origin := os.Getenv("ORIGIN"); origin != "" {
		header.Set("Origin", origin)
	}

	fmt.Printf("[CAPTIONS] Connecting to %s\n", u.String())

	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), header)
	if err != nil {
		if resp != nil {
			body, _ := io.ReadAll(resp.Body)
			fmt.Printf("[CAPTIONS] Dial failed: %v, status=%d, body=%s\n", err, resp.StatusCode, string(body))
		}
		log.Fatal("dial:", err)
	}
	wsConn = conn
	defer conn.Close()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		fmt.Println("[CAPTIONS] Shutting down...")
		_ = send(transport.EventStopLesson, nil)
		conn.Close()
		os.Exit(0)
	}()

	if err := send(transport.EventJoinRoom, roomID); err != nil {
		log.Fatal("join room:", err)
	}
	fmt.Printf("[CAPTIONS] Joined room %s\n", roomID)

	if path := os.Getenv("AUDIO_FILE"); path != "" {
		if err := send(transport.EventStartLesson, nil); err != nil {
			log.Fatal("start lesson:", err)
		}
		go streamFile(path)
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			fmt.Printf("[CAPTIONS] Read error: %v\n", err)
			return
		}

		var evt transport.ServerEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			fmt.Printf("[CAPTIONS] Unmarshal error: %v\n", err)
			continue
		}

		switch evt.Name {
		case transport.EventCaption:
			fmt.Println(evt.Text)
		case transport.EventError:
			fmt.Printf("[CAPTIONS] Error: %s\n", evt.Text)
		default:
			fmt.Printf("[CAPTIONS] %s\n", evt.Name)
		}
	}
}

// streamFile sends the file as binary frames paced like a browser recorder,
// then stops the lesson.
func streamFile(path string) {
	f, err := os.Open(path)
	if err != nil {
		fmt.Printf("[CAPTIONS] Open audio failed: %v\n", err)
		return
	}
	defer f.Close()

	ticker := time.NewTicker(chunkInterval)
	defer ticker.Stop()

	buf := make([]byte, 8*1024)
	for range ticker.C {
		n, err := f.Read(buf)
		if n > 0 {
			writeMu.Lock()
			werr := wsConn.WriteMessage(websocket.BinaryMessage, buf[:n])
			writeMu.Unlock()
			if werr != nil {
				fmt.Printf("[CAPTIONS] Write error: %v\n", werr)
				return
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			fmt.Printf("[CAPTIONS] Read audio failed: %v\n", err)
			return
		}
	}

	// give the provider a moment to flush the last words
	time.Sleep(2 * time.Second)
	if err := send(transport.EventStopLesson, nil); err != nil {
		fmt.Printf("[CAPTIONS] Stop failed: %v\n", err)
	}
}

func send(name transport.EventName, data any) error {
	frame, err := transport.Encode(name, data)
	if err != nil {
		return err
	}
	writeMu.Lock()
	defer writeMu.Unlock()
	return wsConn.WriteMessage(websocket.TextMessage, frame)
}
