package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wfunc/quizserver/auth"
)

// Interactive test client for the quiz server. Signs its own dev token,
// connects, and maps stdin commands to protocol events.

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func send(c *websocket.Conn, event string, payload interface{}) error {
	var data json.RawMessage
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		data = raw
	}
	frame, err := json.Marshal(&envelope{Event: event, Data: data})
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.TextMessage, frame)
}

func main() {
	addr := flag.String("addr", "localhost:8080", "server address")
	secret := flag.String("secret", "dev-secret", "jwt secret (must match server config)")
	userID := flag.Int64("user", 1, "user id")
	name := flag.String("name", "Tester", "display name")
	role := flag.String("role", "student", "role: teacher or student")
	flag.Parse()

	token, err := auth.NewVerifier(*secret).Sign(auth.Identity{
		UserID: *userID,
		Name:   *name,
		Role:   *role,
	}, 24*time.Hour)
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws", RawQuery: "token=" + token}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			var env envelope
			if err := json.Unmarshal(message, &env); err != nil {
				log.Printf("Received invalid frame: %s", message)
				continue
			}
			log.Printf("<- %s: %s", env.Event, env.Data)
		}
	}()

	log.Println("Commands: create <lessonID> <numQuestions> | join <code> | rooms | start | next | skip | answer <0-3> | leave")

	var roomCode string

	reader := bufio.NewReader(os.Stdin)
	for {
		select {
		case <-done:
			return
		case <-interrupt:
			c.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		default:
		}

		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "create":
			if len(fields) < 3 {
				log.Println("usage: create <lessonID> <numQuestions>")
				continue
			}
			lessonID, _ := strconv.ParseInt(fields[1], 10, 64)
			num, _ := strconv.Atoi(fields[2])
			err = send(c, "create_room", map[string]interface{}{
				"lesson_ids":    []int64{lessonID},
				"num_questions": num,
				"is_locked":     false,
			})
		case "join":
			if len(fields) < 2 {
				log.Println("usage: join <code>")
				continue
			}
			roomCode = fields[1]
			err = send(c, "join_room", map[string]string{"room_code": roomCode})
		case "rooms":
			err = send(c, "list_rooms", nil)
		case "start":
			err = send(c, "start_quiz", map[string]string{"room_code": roomCode})
		case "next":
			err = send(c, "next_question", map[string]string{"room_code": roomCode})
		case "skip":
			err = send(c, "skip_question", map[string]string{"room_code": roomCode})
		case "answer":
			if len(fields) < 2 {
				log.Println("usage: answer <0-3>")
				continue
			}
			index, _ := strconv.Atoi(fields[1])
			err = send(c, "submit_answer", map[string]interface{}{
				"room_code":    roomCode,
				"answer_index": index,
			})
		case "leave":
			err = send(c, "leave_room", nil)
			roomCode = ""
		default:
			log.Printf("Unknown command %q", fields[0])
			continue
		}

		if err != nil {
			log.Println("Write error:", err)
			return
		}
	}
}
