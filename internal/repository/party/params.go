package party

type SetUserParams struct {
	UserId   string
	Username string
}

type UpdateUserUsernameParams struct {
	UserId   string
	Username string
}

type UpdateUserPartyIdParams struct {
	UserId  string
	PartyId string
}

type UpdateUserPlayerStateParams struct {
	UserId                   string
	PlayerState              string
	TimeInVideo              float64
	LastStateChangeInitiator string
}

type SetPartyParams struct {
	PartyId                  string
	VideoId                  string
	VideoTitle               string
	VideoAuthorName          string
	VideoThumbnailUrl        string
	PlayerState              string
	TimeInVideo              float64
	LastStateChangeInitiator string
	ControllerId             string
}

type UpdatePartyPlayerStateParams struct {
	PartyId                  string
	PlayerState              string
	TimeInVideo              float64
	LastStateChangeInitiator string
	ControllerId             string
}

type UpdatePartyWaitingForReadyParams struct {
	PartyId         string
	WaitingForReady bool
}

type AddMemberToListParams struct {
	MemberId string
	PartyId  string
}

type RemoveMemberFromListParams struct {
	MemberId string
	PartyId  string
}

type AppendMessageParams struct {
	PartyId string
	Message Message
}
