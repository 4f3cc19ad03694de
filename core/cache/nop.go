package cache

type Nop struct{}

func NewNop() *Nop { return &Nop{} }

func (*Nop) Get(string) (any, bool)        { return nil, false }
func (*Nop) Put(string, any, ...PutOption) {}
func (*Nop) Delete(string)                 {}

var _ Cache = (*Nop)(nil)
