package model

import "time"

type Account struct {
	ID          string    `json:"id"`
	XUserID     string    `json:"xUserId"`
	XUsername   string    `json:"xUsername"`
	IsConnected bool      `json:"isConnected"`
	ConnectedAt time.Time `json:"connectedAt"`
}

type GetAccountsRequest struct{}

type GetAccountsResponse struct {
	Accounts []Account `json:"accounts"`
}
