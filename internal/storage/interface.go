package storage

// Storage 字符串键对应JSON值的持久化原语。
// 会话历史与知识标签是两个相互独立的键。
type Storage interface {
	// Get 读取key对应的值并反序列化到out，键不存在时返回ErrKeyNotFound
	Get(key string, out interface{}) error
	// Set 序列化value并写入key
	Set(key string, value interface{}) error
	// Remove 删除key，键不存在时不报错
	Remove(key string) error

	Init() error
	Close() error
}
