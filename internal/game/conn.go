package game

// Conn is a client connection as the game layer sees it. The websocket
// transport implements it; tests substitute their own.
//
// Send must never block: table mutations run under the table lock and push
// events inline. Implementations buffer and drop rather than stall.
type Conn interface {
	ID() string
	Send(event string, payload any)
	Close()
}
