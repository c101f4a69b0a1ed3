package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"kiosk/internal/checkout"
	"kiosk/internal/dto"
	"kiosk/internal/frame"
	"kiosk/internal/ledger"
	"kiosk/internal/logger"
)

const writeWait = 2 * time.Second

// HubService fans kiosk render messages out to browser clients and collects
// their input. It implements kiosk.Presenter.
type HubService struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	frames     chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	inputs     chan checkout.Input
	done       chan struct{}
	mutex      sync.RWMutex
	logger     *logger.Logger

	// open surfaces, replayed to clients that connect mid-checkout
	surfaces map[string][]byte
}

func NewHubService(logger *logger.Logger) *HubService {
	return &HubService{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 32),
		frames:     make(chan []byte, 1),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		inputs:     make(chan checkout.Input, 16),
		done:       make(chan struct{}),
		logger:     logger,
		surfaces:   make(map[string][]byte),
	}
}

// Run owns the client set until ctx ends, then disconnects everyone.
func (h *HubService) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for client := range h.clients {
				client.Close()
				delete(h.clients, client)
			}
			h.mutex.Unlock()
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Client connected. Total: %d", count)
			h.replay(client)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Client disconnected. Total: %d", count)

		case message := <-h.broadcast:
			h.track(message)
			h.send(message)

		case message := <-h.frames:
			h.send(message)
		}
	}
}

func (h *HubService) send(message []byte) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for client := range h.clients {
		if err := h.write(client, message); err != nil {
			h.logger.Error("Error sending message: %v", err)
			delete(h.clients, client)
			client.Close()
		}
	}
}

func (h *HubService) write(client *websocket.Conn, message []byte) error {
	client.SetWriteDeadline(time.Now().Add(writeWait))
	return client.WriteMessage(websocket.TextMessage, message)
}

// track keeps the surfaces map in step with the messages going out.
func (h *HubService) track(message []byte) {
	var head struct {
		Type    string `json:"type"`
		Surface string `json:"surface"`
	}
	if err := json.Unmarshal(message, &head); err != nil {
		return
	}

	switch head.Type {
	case dto.MessageReceipt, dto.MessagePayment, dto.MessageConfirmation:
		h.surfaces[head.Type] = message
	case dto.MessageClose:
		switch head.Surface {
		case checkout.SurfaceReview.String():
			delete(h.surfaces, dto.MessageReceipt)
		case checkout.SurfacePayment.String():
			delete(h.surfaces, dto.MessagePayment)
		case checkout.SurfaceConfirmation.String():
			delete(h.surfaces, dto.MessageConfirmation)
		}
	case dto.MessageCloseAll:
		h.surfaces = make(map[string][]byte)
	}
}

func (h *HubService) replay(client *websocket.Conn) {
	for _, kind := range []string{dto.MessageReceipt, dto.MessagePayment, dto.MessageConfirmation} {
		message, ok := h.surfaces[kind]
		if !ok {
			continue
		}
		if err := h.write(client, message); err != nil {
			h.logger.Warning("Error replaying %s: %v", kind, err)
			return
		}
	}
}

// Register adds a client. After Run has returned the client is closed instead.
func (h *HubService) Register(client *websocket.Conn) {
	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
	}
}

func (h *HubService) Unregister(client *websocket.Conn) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues a message for every client. It does not wait for the
// clients; when the queue is full the message is dropped.
func (h *HubService) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warning("Broadcast queue full, dropping message")
	}
}

// BroadcastFrame is Broadcast for live frames: when a frame is still queued
// the new one is dropped.
func (h *HubService) BroadcastFrame(message []byte) {
	select {
	case h.frames <- message:
	default:
	}
}

func (h *HubService) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Submit hands client input to the kiosk session. Unknown input kinds are
// ignored; input is dropped when the session is not keeping up.
func (h *HubService) Submit(msg dto.InputMessage) {
	in, ok := toInput(msg)
	if !ok {
		h.logger.Warning("Ignoring input of kind %q", msg.Kind)
		return
	}
	select {
	case h.inputs <- in:
	default:
		h.logger.Warning("Input queue full, dropping %s input", msg.Kind)
	}
}

func toInput(msg dto.InputMessage) (checkout.Input, bool) {
	switch msg.Kind {
	case "key":
		r := []rune(msg.Key)
		if len(r) != 1 {
			return checkout.Input{}, false
		}
		return checkout.KeyInput(int(r[0])), true
	case "pointer":
		return checkout.PointerInput(msg.X, msg.Y), true
	case "action":
		return checkout.ActionInput(msg.Action), true
	}
	return checkout.Input{}, false
}

func (h *HubService) publish(msg dto.KioskMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	h.Broadcast(data)
	return nil
}

func (h *HubService) RenderLive(f *frame.Frame, res ledger.Result) error {
	if h.GetClientCount() == 0 {
		return nil
	}
	data, err := json.Marshal(dto.KioskMessage{
		Type:       dto.MessageLive,
		FrameSeq:   f.Seq,
		Image:      f.Data,
		Width:      f.Width,
		Height:     f.Height,
		Overlay:    dto.NewOverlayBoxes(res.Overlay),
		Items:      dto.LineItems(res.Ledger.Entries()),
		GrandTotal: res.Ledger.GrandTotal().StringFixed(2),
	})
	if err != nil {
		return err
	}
	h.BroadcastFrame(data)
	return nil
}

func (h *HubService) RenderReceipt(r *ledger.Receipt) error {
	return h.publish(dto.KioskMessage{Type: dto.MessageReceipt, Receipt: dto.NewReceiptView(r)})
}

func (h *HubService) RenderPayment(r *ledger.Receipt) error {
	return h.publish(dto.KioskMessage{Type: dto.MessagePayment, Receipt: dto.NewReceiptView(r)})
}

func (h *HubService) RenderConfirmation(kind checkout.Payment, r *ledger.Receipt) error {
	return h.publish(dto.KioskMessage{
		Type:    dto.MessageConfirmation,
		Payment: kind.String(),
		Receipt: dto.NewReceiptView(r),
	})
}

func (h *HubService) Close(s checkout.Surface) error {
	return h.publish(dto.KioskMessage{Type: dto.MessageClose, Surface: s.String()})
}

func (h *HubService) CloseAll() error {
	return h.publish(dto.KioskMessage{Type: dto.MessageCloseAll})
}

func (h *HubService) Inputs() <-chan checkout.Input {
	return h.inputs
}
