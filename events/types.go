package events

import "github.com/erezos/flappyjet-backend-sub006/apperr"

const (
	TypeAppInstalled        = "app_installed"
	TypeAppLaunched         = "app_launched"
	TypeUserRegistered      = "user_registered"
	TypeGameStarted         = "game_started"
	TypeGameEnded           = "game_ended"
	TypeGamePaused          = "game_paused"
	TypeGameResumed         = "game_resumed"
	TypeContinueUsed        = "continue_used"
	TypeLevelStarted        = "level_started"
	TypeLevelCompleted      = "level_completed"
	TypeLevelFailed         = "level_failed"
	TypeCurrencyEarned      = "currency_earned"
	TypeCurrencySpent       = "currency_spent"
	TypePurchaseInitiated   = "purchase_initiated"
	TypePurchaseCompleted   = "purchase_completed"
	TypeSkinPurchased       = "skin_purchased"
	TypeSkinEquipped        = "skin_equipped"
	TypePowerupUsed         = "powerup_used"
	TypeAchievementUnlocked = "achievement_unlocked"
	TypeMissionCompleted    = "mission_completed"
	TypeDailyStreakClaimed  = "daily_streak_claimed"
	TypeAdWatched           = "ad_watched"
	TypeAdRevenue           = "ad_revenue"
	TypeLeaderboardViewed   = "leaderboard_viewed"
	TypeTournamentEntered   = "tournament_entered"
	TypeTournamentViewed    = "tournament_viewed"
	TypeNicknameChanged     = "nickname_changed"
	TypeShareClicked        = "share_clicked"
)

const GameModeTournament = "tournament"

var (
	gameModes     = []string{"endless", "story", "tournament", "practice"}
	platforms     = []string{"ios", "android"}
	currencies    = []string{"coins", "gems"}
	stores        = []string{"app_store", "google_play"}
	adTypes       = []string{"rewarded", "interstitial", "banner"}
	causesOfDeath = []string{"pipe", "ground", "ceiling", "obstacle", "quit"}
)

// Types lists every known event_type.
func Types() []string {
	return []string{
		TypeAppInstalled, TypeAppLaunched, TypeUserRegistered, TypeGameStarted,
		TypeGameEnded, TypeGamePaused, TypeGameResumed, TypeContinueUsed,
		TypeLevelStarted, TypeLevelCompleted, TypeLevelFailed, TypeCurrencyEarned,
		TypeCurrencySpent, TypePurchaseInitiated, TypePurchaseCompleted, TypeSkinPurchased,
		TypeSkinEquipped, TypePowerupUsed, TypeAchievementUnlocked, TypeMissionCompleted,
		TypeDailyStreakClaimed, TypeAdWatched, TypeAdRevenue, TypeLeaderboardViewed,
		TypeTournamentEntered, TypeTournamentViewed, TypeNicknameChanged, TypeShareClicked,
	}
}

func newEvent(eventType string) (Event, error) {
	switch eventType {
	case TypeAppInstalled:
		return &AppInstalled{}, nil
	case TypeAppLaunched:
		return &AppLaunched{}, nil
	case TypeUserRegistered:
		return &UserRegistered{}, nil
	case TypeGameStarted:
		return &GameStarted{}, nil
	case TypeGameEnded:
		return &GameEnded{}, nil
	case TypeGamePaused:
		return &GamePaused{}, nil
	case TypeGameResumed:
		return &GameResumed{}, nil
	case TypeContinueUsed:
		return &ContinueUsed{}, nil
	case TypeLevelStarted:
		return &LevelStarted{}, nil
	case TypeLevelCompleted:
		return &LevelCompleted{}, nil
	case TypeLevelFailed:
		return &LevelFailed{}, nil
	case TypeCurrencyEarned:
		return &CurrencyEarned{}, nil
	case TypeCurrencySpent:
		return &CurrencySpent{}, nil
	case TypePurchaseInitiated:
		return &PurchaseInitiated{}, nil
	case TypePurchaseCompleted:
		return &PurchaseCompleted{}, nil
	case TypeSkinPurchased:
		return &SkinPurchased{}, nil
	case TypeSkinEquipped:
		return &SkinEquipped{}, nil
	case TypePowerupUsed:
		return &PowerupUsed{}, nil
	case TypeAchievementUnlocked:
		return &AchievementUnlocked{}, nil
	case TypeMissionCompleted:
		return &MissionCompleted{}, nil
	case TypeDailyStreakClaimed:
		return &DailyStreakClaimed{}, nil
	case TypeAdWatched:
		return &AdWatched{}, nil
	case TypeAdRevenue:
		return &AdRevenue{}, nil
	case TypeLeaderboardViewed:
		return &LeaderboardViewed{}, nil
	case TypeTournamentEntered:
		return &TournamentEntered{}, nil
	case TypeTournamentViewed:
		return &TournamentViewed{}, nil
	case TypeNicknameChanged:
		return &NicknameChanged{}, nil
	case TypeShareClicked:
		return &ShareClicked{}, nil
	default:
		return nil, apperr.Validationf("unknown event_type %q", eventType)
	}
}

// Session lifecycle

type AppInstalled struct {
	Platform      string `json:"platform"`
	AppVersion    string `json:"app_version"`
	InstallSource string `json:"install_source,omitempty"`
	DeviceModel   string `json:"device_model,omitempty"`
}

func (*AppInstalled) Type() string { return TypeAppInstalled }

func (e *AppInstalled) Validate() error {
	c := newChecker(TypeAppInstalled)
	c.enum("platform", e.Platform, true, platforms...)
	c.str("app_version", e.AppVersion, true, 32)
	c.str("install_source", e.InstallSource, false, 64)
	c.str("device_model", e.DeviceModel, false, 128)
	return c.err()
}

type AppLaunched struct {
	Platform    string `json:"platform"`
	AppVersion  string `json:"app_version"`
	LaunchCount *int64 `json:"launch_count,omitempty"`
	ColdStart   *bool  `json:"cold_start,omitempty"`
}

func (*AppLaunched) Type() string { return TypeAppLaunched }

func (e *AppLaunched) Validate() error {
	c := newChecker(TypeAppLaunched)
	c.enum("platform", e.Platform, true, platforms...)
	c.str("app_version", e.AppVersion, true, 32)
	c.num("launch_count", e.LaunchCount, false, 1, noMax)
	return c.err()
}

type UserRegistered struct {
	Platform    string `json:"platform"`
	Method      string `json:"method,omitempty"`
	Nickname    string `json:"nickname,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
}

func (*UserRegistered) Type() string { return TypeUserRegistered }

func (e *UserRegistered) Validate() error {
	c := newChecker(TypeUserRegistered)
	c.enum("platform", e.Platform, true, platforms...)
	c.enum("method", e.Method, false, "guest", "google", "apple", "facebook")
	c.str("nickname", e.Nickname, false, 50)
	if e.CountryCode != "" && len(e.CountryCode) != 2 {
		c.fail("country_code must be a 2-letter code")
	}
	return c.err()
}

// Gameplay

type GameStarted struct {
	GameMode     string `json:"game_mode"`
	TournamentID string `json:"tournament_id,omitempty"`
	JetSkin      string `json:"jet_skin,omitempty"`
	Level        *int64 `json:"level,omitempty"`
}

func (*GameStarted) Type() string { return TypeGameStarted }

func (e *GameStarted) Validate() error {
	c := newChecker(TypeGameStarted)
	c.enum("game_mode", e.GameMode, true, gameModes...)
	c.str("tournament_id", e.TournamentID, false, 64)
	c.str("jet_skin", e.JetSkin, false, 64)
	c.num("level", e.Level, false, 1, noMax)
	return c.err()
}

// GameEnded is the only event that feeds leaderboards. SurvivalTime is in milliseconds.
type GameEnded struct {
	Score           *int64 `json:"score"`
	SurvivalTime    *int64 `json:"survival_time"`
	GameMode        string `json:"game_mode"`
	TournamentID    string `json:"tournament_id,omitempty"`
	CoinsCollected  *int64 `json:"coins_collected,omitempty"`
	GemsCollected   *int64 `json:"gems_collected,omitempty"`
	ObstaclesPassed *int64 `json:"obstacles_passed,omitempty"`
	JetSkin         string `json:"jet_skin,omitempty"`
	CauseOfDeath    string `json:"cause_of_death,omitempty"`
}

func (*GameEnded) Type() string { return TypeGameEnded }

func (e *GameEnded) Validate() error {
	c := newChecker(TypeGameEnded)
	c.num("score", e.Score, true, 0, MaxScore)
	c.num("survival_time", e.SurvivalTime, true, 0, noMax)
	c.enum("game_mode", e.GameMode, true, gameModes...)
	c.str("tournament_id", e.TournamentID, false, 64)
	c.num("coins_collected", e.CoinsCollected, false, 0, noMax)
	c.num("gems_collected", e.GemsCollected, false, 0, noMax)
	c.num("obstacles_passed", e.ObstaclesPassed, false, 0, noMax)
	c.str("jet_skin", e.JetSkin, false, 64)
	c.enum("cause_of_death", e.CauseOfDeath, false, causesOfDeath...)
	return c.err()
}

func (e *GameEnded) IsTournament() bool { return e.GameMode == GameModeTournament }

// ScoreValue returns the score, or 0 when unset.
func (e *GameEnded) ScoreValue() int64 {
	if e.Score == nil {
		return 0
	}
	return *e.Score
}

// SurvivalMs returns the survival time in milliseconds, or 0 when unset.
func (e *GameEnded) SurvivalMs() int64 {
	if e.SurvivalTime == nil {
		return 0
	}
	return *e.SurvivalTime
}

type GamePaused struct {
	GameMode  string `json:"game_mode"`
	ElapsedMs *int64 `json:"elapsed_ms"`
}

func (*GamePaused) Type() string { return TypeGamePaused }

func (e *GamePaused) Validate() error {
	c := newChecker(TypeGamePaused)
	c.enum("game_mode", e.GameMode, true, gameModes...)
	c.num("elapsed_ms", e.ElapsedMs, true, 0, noMax)
	return c.err()
}

type GameResumed struct {
	GameMode string `json:"game_mode"`
	PausedMs *int64 `json:"paused_ms"`
}

func (*GameResumed) Type() string { return TypeGameResumed }

func (e *GameResumed) Validate() error {
	c := newChecker(TypeGameResumed)
	c.enum("game_mode", e.GameMode, true, gameModes...)
	c.num("paused_ms", e.PausedMs, true, 0, noMax)
	return c.err()
}

type ContinueUsed struct {
	ContinueType    string `json:"continue_type"`
	Cost            *int64 `json:"cost,omitempty"`
	ScoreAtContinue *int64 `json:"score_at_continue"`
}

func (*ContinueUsed) Type() string { return TypeContinueUsed }

func (e *ContinueUsed) Validate() error {
	c := newChecker(TypeContinueUsed)
	c.enum("continue_type", e.ContinueType, true, "ad", "gems", "coins")
	c.num("cost", e.Cost, false, 0, noMax)
	c.num("score_at_continue", e.ScoreAtContinue, true, 0, MaxScore)
	return c.err()
}

// Story levels

type LevelStarted struct {
	Level *int64 `json:"level"`
	Zone  string `json:"zone,omitempty"`
}

func (*LevelStarted) Type() string { return TypeLevelStarted }

func (e *LevelStarted) Validate() error {
	c := newChecker(TypeLevelStarted)
	c.num("level", e.Level, true, 1, noMax)
	c.str("zone", e.Zone, false, 64)
	return c.err()
}

type LevelCompleted struct {
	Level      *int64 `json:"level"`
	Score      *int64 `json:"score"`
	Stars      *int64 `json:"stars,omitempty"`
	DurationMs *int64 `json:"duration_ms,omitempty"`
}

func (*LevelCompleted) Type() string { return TypeLevelCompleted }

func (e *LevelCompleted) Validate() error {
	c := newChecker(TypeLevelCompleted)
	c.num("level", e.Level, true, 1, noMax)
	c.num("score", e.Score, true, 0, MaxScore)
	c.num("stars", e.Stars, false, 0, 3)
	c.num("duration_ms", e.DurationMs, false, 0, noMax)
	return c.err()
}

type LevelFailed struct {
	Level        *int64 `json:"level"`
	Score        *int64 `json:"score,omitempty"`
	CauseOfDeath string `json:"cause_of_death,omitempty"`
	Attempts     *int64 `json:"attempts,omitempty"`
}

func (*LevelFailed) Type() string { return TypeLevelFailed }

func (e *LevelFailed) Validate() error {
	c := newChecker(TypeLevelFailed)
	c.num("level", e.Level, true, 1, noMax)
	c.num("score", e.Score, false, 0, MaxScore)
	c.enum("cause_of_death", e.CauseOfDeath, false, causesOfDeath...)
	c.num("attempts", e.Attempts, false, 1, noMax)
	return c.err()
}

// Economy

type CurrencyEarned struct {
	Currency string `json:"currency"`
	Amount   *int64 `json:"amount"`
	Source   string `json:"source"`
}

func (*CurrencyEarned) Type() string { return TypeCurrencyEarned }

func (e *CurrencyEarned) Validate() error {
	c := newChecker(TypeCurrencyEarned)
	c.enum("currency", e.Currency, true, currencies...)
	c.num("amount", e.Amount, true, 1, noMax)
	c.str("source", e.Source, true, 64)
	return c.err()
}

type CurrencySpent struct {
	Currency string `json:"currency"`
	Amount   *int64 `json:"amount"`
	Item     string `json:"item"`
}

func (*CurrencySpent) Type() string { return TypeCurrencySpent }

func (e *CurrencySpent) Validate() error {
	c := newChecker(TypeCurrencySpent)
	c.enum("currency", e.Currency, true, currencies...)
	c.num("amount", e.Amount, true, 1, noMax)
	c.str("item", e.Item, true, 64)
	return c.err()
}

type PurchaseInitiated struct {
	ProductID    string   `json:"product_id"`
	Store        string   `json:"store"`
	Price        *float64 `json:"price,omitempty"`
	CurrencyCode string   `json:"currency_code,omitempty"`
}

func (*PurchaseInitiated) Type() string { return TypePurchaseInitiated }

func (e *PurchaseInitiated) Validate() error {
	c := newChecker(TypePurchaseInitiated)
	c.str("product_id", e.ProductID, true, 128)
	c.enum("store", e.Store, true, stores...)
	c.amount("price", e.Price, false)
	if e.CurrencyCode != "" && len(e.CurrencyCode) != 3 {
		c.fail("currency_code must be a 3-letter code")
	}
	return c.err()
}

type PurchaseCompleted struct {
	ProductID     string   `json:"product_id"`
	TransactionID string   `json:"transaction_id"`
	Store         string   `json:"store"`
	Price         *float64 `json:"price"`
	CurrencyCode  string   `json:"currency_code"`
}

func (*PurchaseCompleted) Type() string { return TypePurchaseCompleted }

func (e *PurchaseCompleted) Validate() error {
	c := newChecker(TypePurchaseCompleted)
	c.str("product_id", e.ProductID, true, 128)
	c.str("transaction_id", e.TransactionID, true, 256)
	c.enum("store", e.Store, true, stores...)
	c.amount("price", e.Price, true)
	if len(e.CurrencyCode) != 3 {
		c.fail("currency_code must be a 3-letter code")
	}
	return c.err()
}

type SkinPurchased struct {
	SkinID   string `json:"skin_id"`
	Currency string `json:"currency"`
	Price    *int64 `json:"price"`
}

func (*SkinPurchased) Type() string { return TypeSkinPurchased }

func (e *SkinPurchased) Validate() error {
	c := newChecker(TypeSkinPurchased)
	c.str("skin_id", e.SkinID, true, 64)
	c.enum("currency", e.Currency, true, currencies...)
	c.num("price", e.Price, true, 0, noMax)
	return c.err()
}

type SkinEquipped struct {
	SkinID         string `json:"skin_id"`
	PreviousSkinID string `json:"previous_skin_id,omitempty"`
}

func (*SkinEquipped) Type() string { return TypeSkinEquipped }

func (e *SkinEquipped) Validate() error {
	c := newChecker(TypeSkinEquipped)
	c.str("skin_id", e.SkinID, true, 64)
	c.str("previous_skin_id", e.PreviousSkinID, false, 64)
	return c.err()
}

type PowerupUsed struct {
	PowerupType string `json:"powerup_type"`
	GameMode    string `json:"game_mode,omitempty"`
}

func (*PowerupUsed) Type() string { return TypePowerupUsed }

func (e *PowerupUsed) Validate() error {
	c := newChecker(TypePowerupUsed)
	c.enum("powerup_type", e.PowerupType, true, "shield", "magnet", "double_coins", "slow_motion")
	c.enum("game_mode", e.GameMode, false, gameModes...)
	return c.err()
}

// Progression

type AchievementUnlocked struct {
	AchievementID string `json:"achievement_id"`
	Tier          string `json:"tier,omitempty"`
	RewardCoins   *int64 `json:"reward_coins,omitempty"`
}

func (*AchievementUnlocked) Type() string { return TypeAchievementUnlocked }

func (e *AchievementUnlocked) Validate() error {
	c := newChecker(TypeAchievementUnlocked)
	c.str("achievement_id", e.AchievementID, true, 64)
	c.enum("tier", e.Tier, false, "bronze", "silver", "gold", "platinum")
	c.num("reward_coins", e.RewardCoins, false, 0, noMax)
	return c.err()
}

type MissionCompleted struct {
	MissionID   string `json:"mission_id"`
	MissionType string `json:"mission_type"`
	RewardCoins *int64 `json:"reward_coins,omitempty"`
	RewardGems  *int64 `json:"reward_gems,omitempty"`
}

func (*MissionCompleted) Type() string { return TypeMissionCompleted }

func (e *MissionCompleted) Validate() error {
	c := newChecker(TypeMissionCompleted)
	c.str("mission_id", e.MissionID, true, 64)
	c.str("mission_type", e.MissionType, true, 64)
	c.num("reward_coins", e.RewardCoins, false, 0, noMax)
	c.num("reward_gems", e.RewardGems, false, 0, noMax)
	return c.err()
}

type DailyStreakClaimed struct {
	StreakDay   *int64 `json:"streak_day"`
	RewardCoins *int64 `json:"reward_coins,omitempty"`
	RewardGems  *int64 `json:"reward_gems,omitempty"`
}

func (*DailyStreakClaimed) Type() string { return TypeDailyStreakClaimed }

func (e *DailyStreakClaimed) Validate() error {
	c := newChecker(TypeDailyStreakClaimed)
	c.num("streak_day", e.StreakDay, true, 1, noMax)
	c.num("reward_coins", e.RewardCoins, false, 0, noMax)
	c.num("reward_gems", e.RewardGems, false, 0, noMax)
	return c.err()
}

// Ads

type AdWatched struct {
	AdType        string `json:"ad_type"`
	Placement     string `json:"placement"`
	Completed     *bool  `json:"completed,omitempty"`
	RewardGranted string `json:"reward_granted,omitempty"`
}

func (*AdWatched) Type() string { return TypeAdWatched }

func (e *AdWatched) Validate() error {
	c := newChecker(TypeAdWatched)
	c.enum("ad_type", e.AdType, true, adTypes...)
	c.str("placement", e.Placement, true, 64)
	c.str("reward_granted", e.RewardGranted, false, 64)
	return c.err()
}

type AdRevenue struct {
	AdType       string   `json:"ad_type"`
	Network      string   `json:"network"`
	Revenue      *float64 `json:"revenue"`
	CurrencyCode string   `json:"currency_code"`
}

func (*AdRevenue) Type() string { return TypeAdRevenue }

func (e *AdRevenue) Validate() error {
	c := newChecker(TypeAdRevenue)
	c.enum("ad_type", e.AdType, true, adTypes...)
	c.str("network", e.Network, true, 64)
	c.amount("revenue", e.Revenue, true)
	if len(e.CurrencyCode) != 3 {
		c.fail("currency_code must be a 3-letter code")
	}
	return c.err()
}

// Social and competition

type LeaderboardViewed struct {
	LeaderboardType string `json:"leaderboard_type"`
	TournamentID    string `json:"tournament_id,omitempty"`
	PlayerRank      *int64 `json:"player_rank,omitempty"`
}

func (*LeaderboardViewed) Type() string { return TypeLeaderboardViewed }

func (e *LeaderboardViewed) Validate() error {
	c := newChecker(TypeLeaderboardViewed)
	c.enum("leaderboard_type", e.LeaderboardType, true, "global", "tournament")
	if e.LeaderboardType == "tournament" && e.TournamentID == "" {
		c.fail("tournament_id is required for tournament leaderboards")
	}
	c.num("player_rank", e.PlayerRank, false, 1, noMax)
	return c.err()
}

type TournamentEntered struct {
	TournamentID string `json:"tournament_id"`
	EntryFee     *int64 `json:"entry_fee,omitempty"`
}

func (*TournamentEntered) Type() string { return TypeTournamentEntered }

func (e *TournamentEntered) Validate() error {
	c := newChecker(TypeTournamentEntered)
	c.str("tournament_id", e.TournamentID, true, 64)
	c.num("entry_fee", e.EntryFee, false, 0, noMax)
	return c.err()
}

type TournamentViewed struct {
	TournamentID string `json:"tournament_id"`
}

func (*TournamentViewed) Type() string { return TypeTournamentViewed }

func (e *TournamentViewed) Validate() error {
	c := newChecker(TypeTournamentViewed)
	c.str("tournament_id", e.TournamentID, true, 64)
	return c.err()
}

type NicknameChanged struct {
	OldNickname string `json:"old_nickname,omitempty"`
	NewNickname string `json:"new_nickname"`
}

func (*NicknameChanged) Type() string { return TypeNicknameChanged }

func (e *NicknameChanged) Validate() error {
	c := newChecker(TypeNicknameChanged)
	c.str("old_nickname", e.OldNickname, false, 50)
	c.str("new_nickname", e.NewNickname, true, 50)
	if e.NewNickname != "" && len(e.NewNickname) < 3 {
		c.fail("new_nickname must be at least 3 characters")
	}
	return c.err()
}

type ShareClicked struct {
	ShareType string `json:"share_type"`
	Channel   string `json:"channel,omitempty"`
	Score     *int64 `json:"score,omitempty"`
}

func (*ShareClicked) Type() string { return TypeShareClicked }

func (e *ShareClicked) Validate() error {
	c := newChecker(TypeShareClicked)
	c.enum("share_type", e.ShareType, true, "score", "achievement", "tournament", "app")
	c.str("channel", e.Channel, false, 64)
	c.num("score", e.Score, false, 0, MaxScore)
	return c.err()
}
