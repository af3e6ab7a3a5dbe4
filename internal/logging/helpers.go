package logging

// Convenience wrappers for the hot categories so call sites stay short.

// Turn logs to the turn category at info level.
func Turn(format string, args ...interface{}) { Get(CategoryTurn).Info(format, args...) }

// TurnDebug logs to the turn category at debug level.
func TurnDebug(format string, args ...interface{}) { Get(CategoryTurn).Debug(format, args...) }

// Dispatch logs to the dispatch category at info level.
func Dispatch(format string, args ...interface{}) { Get(CategoryDispatch).Info(format, args...) }

// DispatchDebug logs to the dispatch category at debug level.
func DispatchDebug(format string, args ...interface{}) { Get(CategoryDispatch).Debug(format, args...) }

// Store logs to the store category at info level.
func Store(format string, args ...interface{}) { Get(CategoryStore).Info(format, args...) }

// StoreDebug logs to the store category at debug level.
func StoreDebug(format string, args ...interface{}) { Get(CategoryStore).Debug(format, args...) }

// Plan logs to the plan category at info level.
func Plan(format string, args ...interface{}) { Get(CategoryPlan).Info(format, args...) }

// PlanDebug logs to the plan category at debug level.
func PlanDebug(format string, args ...interface{}) { Get(CategoryPlan).Debug(format, args...) }

// Candidate logs to the candidate category at info level.
func Candidate(format string, args ...interface{}) { Get(CategoryCandidate).Info(format, args...) }

// CandidateDebug logs to the candidate category at debug level.
func CandidateDebug(format string, args ...interface{}) { Get(CategoryCandidate).Debug(format, args...) }

// Checkup logs to the checkup category at info level.
func Checkup(format string, args ...interface{}) { Get(CategoryCheckup).Info(format, args...) }

// CheckupDebug logs to the checkup category at debug level.
func CheckupDebug(format string, args ...interface{}) { Get(CategoryCheckup).Debug(format, args...) }

// Consent logs to the consent category at debug level; classification is
// chatty, keep it out of info.
func Consent(format string, args ...interface{}) { Get(CategoryConsent).Debug(format, args...) }

// API logs to the api category at info level.
func API(format string, args ...interface{}) { Get(CategoryAPI).Info(format, args...) }

// APIDebug logs to the api category at debug level.
func APIDebug(format string, args ...interface{}) { Get(CategoryAPI).Debug(format, args...) }

// Ledger logs to the ledger category at debug level.
func Ledger(format string, args ...interface{}) { Get(CategoryLedger).Debug(format, args...) }

// Session logs to the session category at info level.
func Session(format string, args ...interface{}) { Get(CategorySession).Info(format, args...) }
