package flow

// Onboarding states.
const (
	StepEmail        State = "email"
	StepVerification State = "verification"
	StepProfile      State = "profile"
	StepSuccess      State = "success"
)

// Caregiver dashboard states.
const (
	ViewWelcome        State = "welcome"
	ViewRegistration   State = "registration"
	ViewProfiles       State = "profiles"
	ViewChildDashboard State = "child_dashboard"
)

// Circle states.
const (
	CircleEmpty   State = "empty"
	CircleCreate  State = "create"
	CircleJoin    State = "join"
	CircleInvite  State = "invite"
	CircleWaiting State = "waiting"
	CircleMembers State = "members"
)

// Onboarding is email entry, code verification, profile setup, done.
var Onboarding = newMachine("onboarding", StepEmail,
	map[State]Screen{
		StepEmail:        "EmailStep",
		StepVerification: "VerificationStep",
		StepProfile:      "ProfileStep",
		StepSuccess:      "SuccessStep",
	},
	[]edge{
		{StepEmail, "submit_email", StepVerification},
		{StepVerification, "verify", StepProfile},
		{StepVerification, "resend", StepVerification},
		{StepVerification, "back", StepEmail},
		{StepProfile, "submit_profile", StepSuccess},
		{StepProfile, "back", StepVerification},
	})

// Caregiver switches between the caregiver's views of their children.
var Caregiver = newMachine("caregiver", ViewWelcome,
	map[State]Screen{
		ViewWelcome:        "CaregiverWelcome",
		ViewRegistration:   "ChildRegistration",
		ViewProfiles:       "ChildProfiles",
		ViewChildDashboard: "ChildDashboard",
	},
	[]edge{
		{ViewWelcome, "start", ViewRegistration},
		{ViewRegistration, "register", ViewProfiles},
		{ViewProfiles, "select_child", ViewChildDashboard},
		{ViewProfiles, "add_child", ViewRegistration},
		{ViewChildDashboard, "back", ViewProfiles},
	})

// Circle covers creating or joining a support circle.
var Circle = newMachine("circle", CircleEmpty,
	map[State]Screen{
		CircleEmpty:   "CircleEmptyState",
		CircleCreate:  "CreateCircle",
		CircleJoin:    "JoinCircle",
		CircleInvite:  "InviteMembers",
		CircleWaiting: "AwaitingApproval",
		CircleMembers: "CircleMembers",
	},
	[]edge{
		{CircleEmpty, "create", CircleCreate},
		{CircleEmpty, "join", CircleJoin},
		{CircleCreate, "submit", CircleInvite},
		{CircleCreate, "cancel", CircleEmpty},
		{CircleJoin, "submit", CircleWaiting},
		{CircleJoin, "cancel", CircleEmpty},
		{CircleInvite, "done", CircleMembers},
		{CircleWaiting, "approved", CircleMembers},
		{CircleWaiting, "rejected", CircleEmpty},
	})

// Machines indexes the flows by name.
var Machines = map[string]*Machine{
	Onboarding.Name(): Onboarding,
	Caregiver.Name():  Caregiver,
	Circle.Name():     Circle,
}
