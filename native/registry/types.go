package registry

// Input bounds enforced at mint time. Title and description limits are in
// Unicode code points; content identifier limits are in raw bytes.
const (
	MinTitleRunes       = 1
	MaxTitleRunes       = 100
	MaxDescriptionRunes = 500
	MaxCIDBytes         = 64
	MaxRoyaltyPercent   = 100
)

// Story is the metadata record minted for a token. Creator and RoyaltyPercent
// are fixed at mint time; no edit or burn path exists.
type Story struct {
	TokenID        uint64   `json:"tokenId"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	AudioCID       []byte   `json:"audioCid"`
	ImageCID       []byte   `json:"imageCid"`
	Creator        [20]byte `json:"creator"`
	RoyaltyPercent uint8    `json:"royaltyPercent"`
	MintedAt       int64    `json:"mintedAt"`
}

// Clone returns a deep copy of the story.
func (s *Story) Clone() *Story {
	if s == nil {
		return nil
	}
	clone := *s
	if s.AudioCID != nil {
		clone.AudioCID = append([]byte(nil), s.AudioCID...)
	}
	if s.ImageCID != nil {
		clone.ImageCID = append([]byte(nil), s.ImageCID...)
	}
	return &clone
}
