package store

var (
	_ UserStore = (*MongoUserStore)(nil)
	_ UserStore = (*GormUserStore)(nil)
)
