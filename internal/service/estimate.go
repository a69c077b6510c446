package service

// WaitEstimator turns a queue position into an estimated wait in minutes.
// Implementations must not decrease as position grows.
type WaitEstimator func(position, activeTables int) int

// TurnoverEstimate assumes every active table frees up once per turnover
// period: position p waits ceil(p / tables) turnovers.
func TurnoverEstimate(turnoverMinutes int) WaitEstimator {
    return func(position, activeTables int) int {
        if position <= 0 {
            return 0
        }
        if activeTables < 1 {
            activeTables = 1
        }
        waves := (position + activeTables - 1) / activeTables
        return waves * turnoverMinutes
    }
}
