package ws

// Client and reply message types carried in events.Envelope.
const (
	msgRegister   = "register"
	msgIdentify   = "identify"
	msgIdentified = "identified"
	msgPing       = "ping"
	msgPong       = "pong"
	msgPlaceBid   = "place_bid"
	msgAck        = "ack"
	msgError      = "error"
)

type IdentifyRequest struct {
	Token string `json:"token"`
}

type IdentifiedBody struct {
	UserID string `json:"userId"`
}

type PlaceBidRequest struct {
	AuctionID string `json:"auctionId"`
	Amount    int64  `json:"amount"`
}

type AckBody struct {
	AuctionID string `json:"auctionId"`
	BidID     string `json:"bidId"`
	Amount    int64  `json:"amount"`
}

type ErrorBody struct {
	Error   string `json:"error"`
	Request string `json:"request,omitempty"`
}

type empty struct{}
