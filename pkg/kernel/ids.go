package kernel

import "github.com/google/uuid"

// ============================================================================
// Typed identifiers
// ============================================================================

type UserID string

func (id UserID) String() string { return string(id) }
func (id UserID) IsEmpty() bool { return id == "" }

type CandidateID string

func NewCandidateID() CandidateID { return CandidateID(uuid.NewString()) }
func (id CandidateID) String() string { return string(id) }
func (id CandidateID) IsEmpty() bool { return id == "" }

type TalentID string

func NewTalentID() TalentID { return TalentID(uuid.NewString()) }
func (id TalentID) String() string { return string(id) }
func (id TalentID) IsEmpty() bool { return id == "" }

type ClientID string

func NewClientID() ClientID { return ClientID(uuid.NewString()) }
func (id ClientID) String() string { return string(id) }
func (id ClientID) IsEmpty() bool { return id == "" }

type AssignmentID string

func NewAssignmentID() AssignmentID { return AssignmentID(uuid.NewString()) }
func (id AssignmentID) String() string { return string(id) }
func (id AssignmentID) IsEmpty() bool { return id == "" }

type LedgerRowID string

func NewLedgerRowID() LedgerRowID { return LedgerRowID(uuid.NewString()) }
func (id LedgerRowID) String() string { return string(id) }
func (id LedgerRowID) IsEmpty() bool { return id == "" }

type RawRowID string

func NewRawRowID() RawRowID { return RawRowID(uuid.NewString()) }
func (id RawRowID) String() string { return string(id) }
func (id RawRowID) IsEmpty() bool { return id == "" }
