package expr

// Expression tree nodes. Trees are immutable once built and are never
// mutated by evaluation, which makes compiled programs safe to share.

type (
	node interface {
		exprNode()
	}

	literal struct {
		value any
	}

	identifier struct {
		name string
	}

	// member is obj.name or obj[expr]; property holds an identifier for
	// static access and an arbitrary expression when computed
	member struct {
		object   node
		property node
		computed bool
	}

	unary struct {
		op      string
		operand node
	}

	binary struct {
		left  node
		right node
		op    string
	}

	logical struct {
		left  node
		right node
		op    string
	}

	conditional struct {
		test node
		then node
		els  node
	}

	call struct {
		callee node
		args   []node
	}
)

func (*literal) exprNode()     {}
func (*identifier) exprNode()  {}
func (*member) exprNode()      {}
func (*unary) exprNode()       {}
func (*binary) exprNode()      {}
func (*logical) exprNode()     {}
func (*conditional) exprNode() {}
func (*call) exprNode()        {}
