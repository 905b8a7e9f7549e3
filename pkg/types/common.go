package types

const DEFAULT_APPID = "teamloop"

const NO_PAGINATION = 0
